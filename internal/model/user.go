package model

// Account represents a row in the `users` table. Each field corresponds to a
// column in the database; the db tags drive sqlx scanning. The digest column
// keeps the original schema name `password` but never holds plaintext.
//
// Fields:
//
//	ID               – primary key, assigned by the store on insert.
//	Login            – unique login chosen at registration; immutable.
//	CredentialDigest – base64 SHA-256 digest of the password.
//	DisplayName      – free-text display name.
//	Locale           – one of VN or CH.
type Account struct {
	ID               int64  `db:"id"`       // users.id
	Login            string `db:"login"`    // users.login
	CredentialDigest string `db:"password"` // users.password
	DisplayName      string `db:"username"` // users.username
	Locale           Locale `db:"language"` // users.language
}

// Public strips the credential digest from the account.
func (a Account) Public() AuthenticatedAccount {
	return AuthenticatedAccount{
		ID:          a.ID,
		Login:       a.Login,
		DisplayName: a.DisplayName,
		Locale:      a.Locale,
	}
}

// AuthenticatedAccount is the public projection of an Account returned by a
// successful login. It is the snapshot tokens are minted from.
type AuthenticatedAccount struct {
	ID          int64
	Login       string
	DisplayName string
	Locale      Locale
}

// NewAccount is the insert payload handed to the repository. The locale has
// already been validated and the password already digested.
type NewAccount struct {
	Login            string
	CredentialDigest string
	DisplayName      string
	Locale           Locale
}

// RegistrationRequest is the raw registration input. LocaleCode is validated
// against the Locale variants before anything is persisted.
type RegistrationRequest struct {
	Login      string
	Password   string
	Name       string
	LocaleCode string
}

// LoginRequest is the raw login input. An empty field counts as absent.
type LoginRequest struct {
	Login    string
	Password string
}

// Complete reports whether both login and password were supplied.
func (r LoginRequest) Complete() bool {
	return r.Login != "" && r.Password != ""
}
