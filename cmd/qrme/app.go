package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/vaultsandbox/qrme"
	"github.com/vaultsandbox/qrme/internal/config"
	"github.com/vaultsandbox/qrme/internal/modelfile"
)

var flagConfig = &cli.StringFlag{
	Name:    "config",
	Usage:   "Path to YAML config file",
	EnvVars: []string{"QRME_CONFIG"},
}

var flagSecretKey = &cli.StringFlag{
	Name:  "secret-key",
	Usage: "Path to the secret key file",
}

var flagPublicKey = &cli.StringFlag{
	Name:  "public-key",
	Usage: "Path to the public key file",
}

var flagModel = &cli.StringFlag{
	Name:     "model",
	Required: true,
	Usage:    "Path to the encrypted model file",
}

var flagIn = &cli.StringFlag{
	Name:     "in",
	Required: true,
	Usage:    "Input file",
}

var flagOut = &cli.StringFlag{
	Name:     "out",
	Required: true,
	Usage:    "Output file",
}

// app carries state shared by all commands.
type app struct {
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	logger *slog.Logger
}

func newApp(stdout, stderr io.Writer) *cli.App {
	a := &app{stdout: stdout, stderr: stderr}

	return &cli.App{
		Name:      "qrme",
		Usage:     "post-quantum encrypted model weights",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     []cli.Flag{flagConfig},
		Before:    a.loadConfig,
		Commands: []*cli.Command{
			{
				Name:  "keygen",
				Usage: "Generate an ML-KEM-768 keypair",
				Flags: []cli.Flag{
					flagSecretKey,
					flagPublicKey,
					&cli.StringFlag{Name: "master-hex", Usage: "Derive the keypair from this hex master secret"},
					&cli.StringFlag{Name: "label", Value: "default", Usage: "Derivation label used with --master-hex"},
				},
				Action: a.keygen,
			},
			{
				Name:  "sample",
				Usage: "Write a random 3-2-1 sample model encrypted to a public key",
				Flags: []cli.Flag{
					flagOut,
					flagPublicKey,
					&cli.Uint64Flag{Name: "seed", Usage: "Seed for reproducible weights (random when unset)"},
				},
				Action: a.sample,
			},
			{
				Name:  "infer",
				Usage: "Decrypt a model and run inference",
				Flags: []cli.Flag{
					flagModel,
					flagSecretKey,
					&cli.StringFlag{Name: "input", Usage: "Comma-separated input values (random when unset)"},
					&cli.StringFlag{Name: "output-envelope", Usage: "Also write the output encrypted to the model's public key"},
				},
				Action: a.infer,
			},
			{
				Name:   "inspect",
				Usage:  "Print the structure of a model file without decrypting it",
				Flags:  []cli.Flag{flagModel},
				Action: a.inspect,
			},
			{
				Name:   "seal",
				Usage:  "Encrypt a file to a public key",
				Flags:  []cli.Flag{flagIn, flagOut, flagPublicKey},
				Action: a.seal,
			},
			{
				Name:   "open",
				Usage:  "Decrypt a sealed file",
				Flags:  []cli.Flag{flagIn, flagOut, flagSecretKey},
				Action: a.open,
			},
			{
				Name:   "sign-keygen",
				Usage:  "Generate an ML-DSA-65 signing keypair",
				Flags:  []cli.Flag{flagSecretKey, flagPublicKey},
				Action: a.signKeygen,
			},
			{
				Name:  "sign",
				Usage: "Write a detached signature next to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true, Usage: "File to sign"},
					flagSecretKey,
				},
				Action: a.sign,
			},
			{
				Name:  "verify",
				Usage: "Verify the detached signature of a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true, Usage: "File to verify"},
					flagPublicKey,
				},
				Action: a.verify,
			},
		},
	}
}

func (a *app) loadConfig(cCtx *cli.Context) error {
	cfg := config.DefaultConfig()
	if path := cCtx.String(flagConfig.Name); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	a.cfg = cfg
	a.logger = cfg.Logger(a.stderr)
	return nil
}

func (a *app) options() []qrme.Option {
	return []qrme.Option{qrme.WithConfig(a.cfg), qrme.WithLogger(a.logger)}
}

// path returns the flag value, falling back to the configured default.
func path(cCtx *cli.Context, name, fallback string) (string, error) {
	if v := cCtx.String(name); v != "" {
		return v, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("--%s is required", name)
}

func (a *app) keygen(cCtx *cli.Context) error {
	skPath, err := path(cCtx, flagSecretKey.Name, a.cfg.Keys.SecretKeyFile)
	if err != nil {
		return err
	}
	pkPath, err := path(cCtx, flagPublicKey.Name, a.cfg.Keys.PublicKeyFile)
	if err != nil {
		return err
	}

	var kp *qrme.Keypair
	if masterHex := cCtx.String("master-hex"); masterHex != "" {
		master, err := hex.DecodeString(masterHex)
		if err != nil {
			return fmt.Errorf("decoding --master-hex: %w", err)
		}
		kp, err = qrme.DeriveKeypair(master, cCtx.String("label"), a.options()...)
		qrme.Wipe(master)
		if err != nil {
			return err
		}
	} else {
		kp, err = qrme.GenerateKeypair(a.options()...)
		if err != nil {
			return err
		}
	}
	defer kp.Destroy()

	if err := qrme.WriteSecretKeyFile(skPath, kp.SecretKey()); err != nil {
		return err
	}
	if err := qrme.WritePublicKeyFile(pkPath, kp.PublicKey); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "public key fingerprint: %s\n", kp.Fingerprint())
	return nil
}

// Sample model dimensions.
const (
	sampleInput  = 3
	sampleHidden = 2
	sampleOutput = 1
)

func (a *app) sample(cCtx *cli.Context) error {
	pkPath, err := path(cCtx, flagPublicKey.Name, a.cfg.Keys.PublicKeyFile)
	if err != nil {
		return err
	}
	pk, err := qrme.ReadPublicKeyFile(pkPath)
	if err != nil {
		return err
	}

	seed := cCtx.Uint64("seed")
	if !cCtx.IsSet("seed") {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	m := qrme.NewModel(a.options()...)
	defer m.Destroy()

	if err := m.AddLayer(randomWeights(rng, sampleHidden*sampleInput), sampleHidden, sampleInput); err != nil {
		return err
	}
	if err := m.AddLayer(randomWeights(rng, sampleOutput*sampleHidden), sampleOutput, sampleHidden); err != nil {
		return err
	}

	out := cCtx.String(flagOut.Name)
	if err := m.Save(out, pk); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %d-layer sample model to %s\n", m.NumLayers(), out)
	return nil
}

// randomWeights returns n values uniformly drawn from [-1, 1).
func randomWeights(rng *rand.Rand, n int) []float32 {
	w := make([]float32, n)
	for i := range w {
		w[i] = rng.Float32()*2 - 1
	}
	return w
}

func (a *app) infer(cCtx *cli.Context) error {
	skPath, err := path(cCtx, flagSecretKey.Name, a.cfg.Keys.SecretKeyFile)
	if err != nil {
		return err
	}
	kp, err := qrme.ReadSecretKeyFile(skPath, a.options()...)
	if err != nil {
		return err
	}
	defer kp.Destroy()

	m, err := qrme.Load(cCtx.String(flagModel.Name), kp.SecretKey(), a.options()...)
	if err != nil {
		return err
	}
	defer m.Destroy()

	var input []float32
	if raw := cCtx.String("input"); raw != "" {
		input, err = parseInput(raw)
		if err != nil {
			return err
		}
	} else {
		input = randomWeights(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), m.InputSize())
	}

	output, err := m.Predict(input)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "input:  %s\n", formatValues(input))
	fmt.Fprintf(a.stdout, "output: %s\n", formatValues(output))
	fmt.Fprintf(a.stdout, "argmax: %d\n", qrme.Argmax(output))

	if envPath := cCtx.String("output-envelope"); envPath != "" {
		if err := a.sealOutput(envPath, m.PublicKey(), output); err != nil {
			return err
		}
	}
	return nil
}

// sealOutput encrypts output as little-endian float32 values.
func (a *app) sealOutput(path string, publicKey []byte, output []float32) error {
	raw := make([]byte, len(output)*modelfile.WeightSize)
	modelfile.PutWeights(raw, output)
	defer qrme.Wipe(raw)

	envelope, err := qrme.Encrypt(publicKey, raw, a.options()...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, envelope, 0o644); err != nil {
		return &qrme.IOError{Op: "write output envelope", Path: path, Err: err}
	}
	fmt.Fprintf(a.stdout, "sealed output to %s\n", path)
	return nil
}

func parseInput(raw string) ([]float32, error) {
	fields := strings.Split(raw, ",")
	input := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, fmt.Errorf("parsing --input value %d: %w", i, err)
		}
		input[i] = float32(v)
	}
	return input, nil
}

func formatValues(values []float32) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (a *app) inspect(cCtx *cli.Context) error {
	info, err := qrme.Inspect(cCtx.String(flagModel.Name), a.options()...)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "suite: %s\n", qrme.Ciphersuite)
	fmt.Fprintf(a.stdout, "layers: %d\n", len(info.Layers))
	for i, l := range info.Layers {
		fmt.Fprintf(a.stdout, "  layer %d: %dx%d (%d bytes encrypted)\n", i, l.Rows, l.Cols, l.CiphertextLen)
	}
	fmt.Fprintf(a.stdout, "input size: %d\n", info.InputSize())
	fmt.Fprintf(a.stdout, "output size: %d\n", info.OutputSize())
	fmt.Fprintf(a.stdout, "public key fingerprint: %s\n", info.PublicKeyFingerprint)
	return nil
}

func (a *app) seal(cCtx *cli.Context) error {
	pkPath, err := path(cCtx, flagPublicKey.Name, a.cfg.Keys.PublicKeyFile)
	if err != nil {
		return err
	}
	pk, err := qrme.ReadPublicKeyFile(pkPath)
	if err != nil {
		return err
	}

	in := cCtx.String(flagIn.Name)
	plaintext, err := os.ReadFile(in)
	if err != nil {
		return &qrme.IOError{Op: "read", Path: in, Err: err}
	}
	defer qrme.Wipe(plaintext)

	envelope, err := qrme.Encrypt(pk, plaintext, a.options()...)
	if err != nil {
		return err
	}

	out := cCtx.String(flagOut.Name)
	if err := os.WriteFile(out, envelope, 0o644); err != nil {
		return &qrme.IOError{Op: "write", Path: out, Err: err}
	}
	return nil
}

func (a *app) open(cCtx *cli.Context) error {
	skPath, err := path(cCtx, flagSecretKey.Name, a.cfg.Keys.SecretKeyFile)
	if err != nil {
		return err
	}
	kp, err := qrme.ReadSecretKeyFile(skPath, a.options()...)
	if err != nil {
		return err
	}
	defer kp.Destroy()

	in := cCtx.String(flagIn.Name)
	envelope, err := os.ReadFile(in)
	if err != nil {
		return &qrme.IOError{Op: "read", Path: in, Err: err}
	}

	plaintext, err := qrme.Decrypt(kp.SecretKey(), envelope, a.options()...)
	if err != nil {
		return err
	}
	defer qrme.Wipe(plaintext)

	out := cCtx.String(flagOut.Name)
	if err := os.WriteFile(out, plaintext, 0o600); err != nil {
		return &qrme.IOError{Op: "write", Path: out, Err: err}
	}
	return nil
}

func (a *app) signKeygen(cCtx *cli.Context) error {
	skPath, err := path(cCtx, flagSecretKey.Name, a.cfg.Keys.SigningSecretKeyFile)
	if err != nil {
		return err
	}
	pkPath, err := path(cCtx, flagPublicKey.Name, a.cfg.Keys.SigningPublicKeyFile)
	if err != nil {
		return err
	}

	kp, err := qrme.GenerateSigningKeypair(a.options()...)
	if err != nil {
		return err
	}
	defer kp.Destroy()

	if err := qrme.WriteSigningSecretKeyFile(skPath, kp.SecretKey()); err != nil {
		return err
	}
	return qrme.WriteSigningPublicKeyFile(pkPath, kp.PublicKey)
}

func (a *app) sign(cCtx *cli.Context) error {
	skPath, err := path(cCtx, flagSecretKey.Name, a.cfg.Keys.SigningSecretKeyFile)
	if err != nil {
		return err
	}
	kp, err := qrme.ReadSigningSecretKeyFile(skPath, a.options()...)
	if err != nil {
		return err
	}
	defer kp.Destroy()

	file := cCtx.String("file")
	if err := qrme.SignFile(file, kp.SecretKey(), a.options()...); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %s%s\n", file, qrme.SignatureSuffix)
	return nil
}

func (a *app) verify(cCtx *cli.Context) error {
	pkPath, err := path(cCtx, flagPublicKey.Name, a.cfg.Keys.SigningPublicKeyFile)
	if err != nil {
		return err
	}
	pk, err := qrme.ReadSigningPublicKeyFile(pkPath)
	if err != nil {
		return err
	}

	file := cCtx.String("file")
	if err := qrme.VerifyFile(file, pk, a.options()...); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "signature OK: %s\n", file)
	return nil
}
