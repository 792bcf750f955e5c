// Package crypto provides identities and sealing for timevault.
//
// Identities are ed25519 key pairs. An Address is the raw 32-byte public key
// rendered in base58. Program-derived addresses are deliberately off the
// ed25519 curve so that no private key can ever sign for them.
//
// Exported identities are sealed with AES-256-GCM:
//   - 32-byte key derived from a passphrase via PBKDF2-HMAC-SHA256
//   - 32-byte random salt and iteration count stored alongside the ciphertext
//   - 12-byte random nonce per encryption operation
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
