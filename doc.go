// Package qrme protects neural-network weights at rest with post-quantum
// hybrid encryption and runs inference over them once decrypted.
//
// Every layer of a model is sealed in its own envelope: an ML-KEM-768
// encapsulation to the recipient's public key whose shared secret keys
// AES-256-GCM. Decrypted weights live in wiped secure buffers for as long as
// the model is open.
//
// Basic usage:
//
//	kp, err := qrme.GenerateKeypair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer kp.Destroy()
//
//	m := qrme.NewModel()
//	_ = m.AddLayer([]float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}, 2, 3)
//	_ = m.AddLayer([]float32{0.7, 0.8}, 1, 2)
//	if err := m.Save("model.qrme", kp.PublicKey); err != nil {
//	    log.Fatal(err)
//	}
//	m.Destroy()
//
//	loaded, err := qrme.Load("model.qrme", kp.SecretKey())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer loaded.Destroy()
//
//	out, err := loaded.Predict([]float32{1, 2, 3})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out, qrme.Argmax(out))
package qrme
