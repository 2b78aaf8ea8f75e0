package domain

// OwnerSettings is read-only for this service.
type OwnerSettings struct {
	OwnerID                 string
	CompanyName             string
	EmailSignature          string
	DefaultSenderIdentityID string
}

type Client struct {
	ID      string
	OwnerID string
	Name    string
	Email   string
}
