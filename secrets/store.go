package secrets

// Store defines the interface for working with secret sources.
type Store interface {
	// Resolve a secret's value from a secret store
	// - keyName is name of the key where the secret can be found.
	// - keyValue is the value of the key.
	// Examples:
	// - keyName=env, keyValue=AWS_SECRET_ACCESS_KEY
	// - keyName=path, keyValue=/run/secrets/s3_secret_key
	// - keyName=value, keyValue=minio123
	Resolve(keyName string, keyValue string) (string, error)
}
