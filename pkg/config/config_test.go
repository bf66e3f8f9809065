package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RFM_INPUT", "online_retail_II.xlsx")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "online_retail_II.xlsx", cfg.Source.Input)
	assert.Equal(t, "online_retail", cfg.Source.Table)
	assert.Equal(t, time.Date(2011, 12, 11, 0, 0, 0, 0, time.UTC), cfg.Run.ReferenceDate)
	assert.Equal(t, "loyal_customers", cfg.Export.Segment)
	assert.Equal(t, "xlsx", cfg.Export.Format)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.False(t, cfg.Run.Save)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RFM_DSN", "mysql://u:p@db:3306/retail")
	t.Setenv("RFM_REFERENCE_DATE", "2012-01-31")
	t.Setenv("RFM_EXPORT_SEGMENT", "champions")
	t.Setenv("RFM_FORMAT", "json")
	t.Setenv("RFM_SAVE", "true")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "mysql://u:p@db:3306/retail", cfg.Source.DSN)
	assert.Equal(t, time.Date(2012, 1, 31, 0, 0, 0, 0, time.UTC), cfg.Run.ReferenceDate)
	assert.Equal(t, "champions", cfg.Export.Segment)
	assert.Equal(t, "json", cfg.Export.Format)
	assert.True(t, cfg.Run.Save)
}

func TestLoad_ExplicitValueWins(t *testing.T) {
	t.Setenv("RFM_INPUT", "from-env.csv")

	v := viper.New()
	v.Set("input", "from-flag.csv")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-flag.csv", cfg.Source.Input)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no source", map[string]string{}},
		{"both sources", map[string]string{"RFM_INPUT": "a.csv", "RFM_DSN": "mysql://u:p@h/db"}},
		{"unknown segment", map[string]string{"RFM_INPUT": "a.csv", "RFM_EXPORT_SEGMENT": "whales"}},
		{"unknown format", map[string]string{"RFM_INPUT": "a.csv", "RFM_FORMAT": "parquet"}},
		{"save without dsn", map[string]string{"RFM_INPUT": "a.csv", "RFM_SAVE": "true"}},
		{"bad date", map[string]string{"RFM_INPUT": "a.csv", "RFM_REFERENCE_DATE": "11/12/2011"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RFM_INPUT", "")
			t.Setenv("RFM_DSN", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(viper.New())
			assert.Error(t, err)
		})
	}
}
