package chunker

import "crypto/sha256"

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// GenerateBookID derives a stable 21-character nanoid-style identifier
// from a book name. The same name always yields the same id, so
// re-indexing a book overwrites its previous entries.
func GenerateBookID(bookName string) string {
	sum := sha256.Sum256([]byte(bookName))
	out := make([]byte, 21)
	for i := range out {
		out[i] = idAlphabet[int(sum[i])%len(idAlphabet)]
	}
	return string(out)
}
