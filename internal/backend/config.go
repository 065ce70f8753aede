package backend

import (
	"errors"
	"fmt"

	"a3p/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                backendType,
		Path:                appConfig.SourcePath,
		Sheet:               appConfig.SourceSheet,
		Delimiter:           appConfig.Delimiter(),
		Encoding:            appConfig.CSVEncoding,
		URL:                 appConfig.SourceURL,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
		DataDirectory:       appConfig.DataDir,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case ExcelBackend:
		if c.Path == "" {
			return errors.New("workbook path is required for excel backend")
		}
		if c.Sheet == "" {
			return errors.New("sheet name is required for excel backend")
		}
	case CSVBackend:
		if c.Path == "" {
			return errors.New("file path is required for csv backend")
		}
	case RemoteBackend:
		if c.URL == "" {
			return errors.New("workbook URL is required for remote backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data"
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{ExcelBackend, CSVBackend, RemoteBackend, SheetsBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
