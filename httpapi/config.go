package httpapi

// Config defines HTTP API settings.
type Config struct {
	Addr     string
	BasePath string
	// HubHistory is the number of events kept for Last-Event-ID replay.
	HubHistory int
}
