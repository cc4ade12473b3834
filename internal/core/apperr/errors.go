package apperr

import (
	"errors"
	"fmt"
)

// Kind klassifiziert einen Fehler für die Abbildung auf HTTP-Statuscodes
// und das Verhalten der Aufrufer (retry vs. reject).
type Kind int

const (
	// KindValidation: fehlerhafte oder unvollständige Eingabe, wird nie wiederholt
	KindValidation Kind = iota + 1
	// KindConstraint: Unique- oder Fremdschlüssel-Konflikt in der Datenbank
	KindConstraint
	// KindStorage: Transaktions- oder I/O-Fehler, Transaktion wurde zurückgerollt
	KindStorage
	// KindNotFound: Referenz auf einen nicht existierenden Datensatz
	KindNotFound
)

// Error ist der typisierte Anwendungsfehler mit Klassifizierung
type Error struct {
	Kind Kind
	Msg  string
	Err  error // Optionale Ursache
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation erstellt einen Validierungsfehler
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Constraint erstellt einen Constraint-Fehler mit Ursache
func Constraint(msg string, err error) *Error {
	return &Error{Kind: KindConstraint, Msg: msg, Err: err}
}

// Storage erstellt einen Speicherfehler mit Ursache
func Storage(msg string, err error) *Error {
	return &Error{Kind: KindStorage, Msg: msg, Err: err}
}

// NotFound erstellt einen Not-Found-Fehler
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// KindOf gibt die Klassifizierung eines Fehlers zurück, 0 für unklassifizierte Fehler
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsValidation prüft, ob ein Fehler ein Validierungsfehler ist
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsConstraint prüft, ob ein Fehler ein Constraint-Fehler ist
func IsConstraint(err error) bool { return KindOf(err) == KindConstraint }

// IsNotFound prüft, ob ein Fehler ein Not-Found-Fehler ist
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
