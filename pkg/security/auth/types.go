package auth

// APIKey is a named credential accepted by the admin API.
type APIKey struct {
	Name    string
	Key     string
	Enabled bool
}

// KeySource names where a key is read from a request.
type KeySource struct {
	Header string
	Scheme string // "Bearer", etc. (optional)
}

// DefaultSources reads bearer tokens first, then X-Api-Key.
var DefaultSources = []KeySource{
	{Header: "Authorization", Scheme: "Bearer"},
	{Header: "X-Api-Key"},
}
