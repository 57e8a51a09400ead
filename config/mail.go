package config

// MailConfig contains outbound SMTP configuration for OTP delivery.
type MailConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"587"`
	Username string `env:"USERNAME" envDefault:""`
	Password string `env:"PASSWORD" envDefault:""`
	From     string `env:"FROM"     envDefault:"no-reply@quizdeck.local"`
}

// Sanitize applies guardrails to mail configuration values.
func (m *MailConfig) Sanitize() {
	if m.Port <= 0 || m.Port > 65535 {
		m.Port = 587
	}
}
