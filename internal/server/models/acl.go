package models

// ACLEntry mirrors a row of the acl table. The table is part of the schema
// but no command consults it.
type ACLEntry struct {
	Path     string
	UserID   string
	CanRead  bool
	CanWrite bool
}
