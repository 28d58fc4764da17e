package schema

// CollectorInfo describes a known collector for listings.
type CollectorInfo struct {
	ID             string       `json:"id"`
	SupportedTypes []MetricType `json:"supportedTypes"`
	Available      bool         `json:"available"`
	Enabled        bool         `json:"enabled"`
}
