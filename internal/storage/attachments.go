package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Store legt hochgeladene Bildanhänge im Snapshot-Verzeichnis ab und
// liefert stabile Dateinamen zurück. Die Kernpipeline kennt nur diese
// Referenzen, nicht die Ablagemechanik.
type Store struct {
	baseDir string
}

// NewStore erstellt einen neuen Attachment-Store
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create attachment directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// BaseDir gibt das Basisverzeichnis des Stores zurück
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Save speichert einen Multipart-Anhang und gibt den relativen Dateinamen
// zurück. Dateien werden nach Datum gruppiert und mit einer UUID benannt,
// damit gleichzeitige Uploads nie kollidieren.
func (s *Store) Save(header *multipart.FileHeader, role string) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".jpg"
	}

	relName := filepath.Join(
		time.Now().UTC().Format("20060102"),
		fmt.Sprintf("%s_%s%s", role, uuid.NewString(), ext),
	)
	absPath := filepath.Join(s.baseDir, relName)

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create attachment subdirectory: %w", err)
	}

	dst, err := os.Create(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to create attachment file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		// Unvollständige Datei nicht liegen lassen
		os.Remove(absPath)
		return "", fmt.Errorf("failed to write attachment file: %w", err)
	}

	log.Debugf("Stored attachment %s (%d bytes)", relName, header.Size)
	return relName, nil
}

// Remove löscht eine zuvor gespeicherte Anhangsdatei. Fehlende Dateien
// werden ignoriert.
func (s *Store) Remove(relName string) error {
	if relName == "" {
		return nil
	}
	absPath := filepath.Join(s.baseDir, relName)
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove attachment file: %w", err)
	}
	return nil
}
