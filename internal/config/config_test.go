package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "single", in: "kafka:9092", want: []string{"kafka:9092"}},
		{name: "spaces and blanks", in: " a:1 , ,b:2,", want: []string{"a:1", "b:2"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CSV(tt.in))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("REFRESH_TOKEN_TTL", "")
	t.Setenv("COOKIE_SECURE", "")
	t.Setenv("DEFAULT_LANG", "")

	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, "en", cfg.DefaultLang)
}

func TestLoad_ProductionForcesSecureCookies(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("COOKIE_SECURE", "false")

	cfg := Load()

	assert.True(t, cfg.Production())
	assert.True(t, cfg.CookieSecure)
}

func TestEnvDurationDefault_Invalid(t *testing.T) {
	t.Setenv("LOGIN_WINDOW", "soon")
	assert.Equal(t, time.Minute, EnvDurationDefault("LOGIN_WINDOW", time.Minute))

	t.Setenv("LOGIN_WINDOW", "-5m")
	assert.Equal(t, time.Minute, EnvDurationDefault("LOGIN_WINDOW", time.Minute))

	t.Setenv("LOGIN_WINDOW", "90s")
	assert.Equal(t, 90*time.Second, EnvDurationDefault("LOGIN_WINDOW", time.Minute))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		DatabaseURL:      "sqlite://file::memory:",
		JWTAccessSecret:  []byte("access"),
		JWTRefreshSecret: []byte("refresh"),
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name: "all missing reported together",
			mutate: func(c *Config) {
				c.DatabaseURL = ""
				c.JWTAccessSecret = nil
				c.JWTRefreshSecret = nil
			},
			wantErr: []string{"DATABASE_URL", "JWT_SECRET", "JWT_REFRESH_SECRET"},
		},
		{
			name:    "shared secret",
			mutate:  func(c *Config) { c.JWTRefreshSecret = []byte("access") },
			wantErr: []string{"must differ"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
