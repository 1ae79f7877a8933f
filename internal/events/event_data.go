package events

// BacktestStartedData contains data for BacktestStarted events
type BacktestStartedData struct {
	RunID   string `json:"run_id"`
	UserID  string `json:"user_id"`
	Configs int    `json:"configs"`
}

// BacktestProgressData contains data for BacktestProgress events
type BacktestProgressData struct {
	RunID      string  `json:"run_id"`
	ConfigID   string  `json:"config_id"`
	ConfigName string  `json:"config_name"`
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percent    float64 `json:"percent"`
}

// BacktestCompletedData contains data for BacktestCompleted events
type BacktestCompletedData struct {
	RunID    string  `json:"run_id"`
	UserID   string  `json:"user_id"`
	Results  int     `json:"results"`
	Duration float64 `json:"duration_seconds"`
}

// AnalysisReadyData contains data for AnalysisReady events
type AnalysisReadyData struct {
	UserID          string `json:"user_id"`
	Results         int    `json:"results"`
	Recommendations int    `json:"recommendations"`
	Patterns        int    `json:"patterns"`
}

// ResultsCleanedData contains data for ResultsCleaned events
type ResultsCleanedData struct {
	Deleted       int64 `json:"deleted"`
	RetentionDays int   `json:"retention_days"`
}
