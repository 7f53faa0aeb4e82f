package cfg

import "time"

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	Port         string
	SourcesFile  string
	FetchTimeout int
	StaticDir    string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) GetFetchTimeout() time.Duration {
	if c.FetchTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.FetchTimeout) * time.Second
}
