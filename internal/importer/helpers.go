package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// readWithChecksum reads a file and computes the SHA-256 hash of its contents.
func readWithChecksum(filePath string) ([]byte, string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, "", err
	}

	hash := sha256.Sum256(data)
	return data, hex.EncodeToString(hash[:]), nil
}
