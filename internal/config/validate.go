package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the configuration is complete for the given mode.
// Modes map to command groups: "merge" and "labels" run fully offline,
// "push" and "setup" talk to Airtable, "store" needs a database.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch mode {
	case "merge", "labels", "parse":
		// Offline modes need no credentials.
	case "push", "setup":
		if c.Airtable.Token == "" {
			missing = append(missing, "airtable.token is required")
		}
		if c.Airtable.BaseID == "" {
			missing = append(missing, "airtable.base_id is required")
		}
		if c.Airtable.BatchSize < 1 || c.Airtable.BatchSize > 10 {
			missing = append(missing, "airtable.batch_size must be between 1 and 10")
		}
		if c.Airtable.RateLimitRPS <= 0 {
			missing = append(missing, "airtable.rate_limit_rps must be > 0")
		}
	case "store":
		switch c.Store.Driver {
		case "sqlite", "":
		case "postgres":
			if c.Store.DatabaseURL == "" {
				missing = append(missing, "store.database_url is required for the postgres driver")
			}
		default:
			missing = append(missing, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Match.FuzzyCutoff < 0 || c.Match.FuzzyCutoff > 100 {
		missing = append(missing, "match.fuzzy_cutoff must be between 0 and 100")
	}
	if c.Match.OCRTextThreshold < 0 {
		missing = append(missing, "match.ocr_text_threshold must be >= 0")
	}
	if c.OCR.DPI < 72 || c.OCR.DPI > 600 {
		missing = append(missing, fmt.Sprintf("ocr.dpi must be between 72 and 600, got %d", c.OCR.DPI))
	}

	if len(missing) > 0 {
		return eris.New("config: invalid configuration:\n  " + strings.Join(missing, "\n  "))
	}
	return nil
}
