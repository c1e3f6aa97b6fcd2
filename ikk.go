package ikk

// Version of the module.
const Version = "0.3.0"

// API summary:
//
// Parameters:
//   - core.GetParams(level) - Named parameter set (IKKToy, IKK64, IKKTernary, IKK1024)
//   - core.NewParams(q, n, k) - Custom parameter set
//
// Cryptosystem:
//   - pke.Generate(n, k) - Key pair over GF(2)
//   - pke.GenerateKeyPair(level) - Key pair for a named parameter set
//   - pke.RandomPlaintext(params, r) - Uniform plaintext
//   - pke.Encrypt(pk, u) / pke.Encode(pk, u, e) - Encryption / public forward map
//   - pke.Decrypt(sk, ct) - Decryption with the secret masking
//
// Cryptanalysis:
//   - attack.Attack(pk, ct) - Candidate plaintexts from public data only
//   - attack.Verify(pk, ct, u) - Public consistency check for a candidate
//   - trial.Run(params, cfg) - Repeated keygen/encrypt/decrypt/attack experiment
