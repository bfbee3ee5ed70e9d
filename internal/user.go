package internal

// User is the signed-in identity attached to a session. The core only cares
// about presence or absence of one.
type User struct {
	ID   string
	Name string
}
