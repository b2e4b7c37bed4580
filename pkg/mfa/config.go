package mfa

// Config holds the environment-driven settings of the MFA manager.
type Config struct {
	Issuer          string `env:"MFA_ISSUER" envDefault:"PointBridge"`  // Issuer shown in authenticator apps
	Skew            uint   `env:"MFA_SKEW" envDefault:"1"`              // Accepted steps on each side of the current one
	BackupCodeCount int    `env:"MFA_BACKUP_CODE_COUNT" envDefault:"8"` // Codes issued per enable/regenerate, 8 to 10
	QRCodeSize      int    `env:"MFA_QR_SIZE" envDefault:"256"`         // PNG size in pixels, 0 disables QR rendering
}

// Options converts the config into manager options.
func (c Config) Options() []Option {
	return []Option{
		WithIssuer(c.Issuer),
		WithSkew(c.Skew),
		WithBackupCodeCount(c.BackupCodeCount),
		WithQRCodeSize(c.QRCodeSize),
	}
}
