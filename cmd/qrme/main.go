// Command qrme manages encrypted models: key generation, sample models,
// inference, inspection, file sealing and detached signatures.
//
// Usage:
//
//	qrme keygen --secret-key model.sk --public-key model.pk
//	qrme sample --out model.qrme --public-key model.pk
//	qrme infer --model model.qrme --secret-key model.sk --input 0.5,-0.3,0.8
//	qrme inspect --model model.qrme
//	qrme seal --in weights.bin --out weights.env --public-key model.pk
//	qrme open --in weights.env --out weights.bin --secret-key model.sk
//	qrme sign-keygen --secret-key signer.sk --public-key signer.pk
//	qrme sign --file model.qrme --secret-key signer.sk
//	qrme verify --file model.qrme --public-key signer.pk
//
// A YAML file passed with --config supplies defaults for key paths, secure
// memory and logging.
package main

import (
	"fmt"
	"os"

	"github.com/vaultsandbox/qrme"
)

func main() {
	err := newApp(os.Stdout, os.Stderr).Run(os.Args)
	qrme.Purge()
	if err != nil {
		fatal("%v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
