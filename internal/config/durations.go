package config

import "time"

// Interval is the main batch sweep period.
func (c BatchConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// InitialDelay is how long the main sweep waits after startup before its first run.
func (c BatchConfig) InitialDelay() time.Duration {
	return time.Duration(c.InitialDelaySeconds) * time.Second
}

// RetryDelay is the minimum age of a failure before it becomes retry-eligible.
func (c BatchConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// RetryInterval is the retry sweep period.
func (c BatchConfig) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalSeconds) * time.Second
}

// TimeoutCheckInterval is the timeout-recovery sweep period.
func (c BatchConfig) TimeoutCheckInterval() time.Duration {
	return time.Duration(c.TimeoutCheckIntervalSeconds) * time.Second
}

// ProcessingTimeout is the age past which a PROCESSING task is considered stuck.
func (c BatchConfig) ProcessingTimeout() time.Duration {
	return time.Duration(c.ProcessingTimeoutMinutes) * time.Minute
}

// WaitTimeout bounds how long the main sweep waits for its dispatched batch.
func (c BatchConfig) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSeconds) * time.Second
}

// MaxAge is the absolute age after which a cache entry is treated as a miss.
func (c CacheConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

// CallTimeout bounds a single language-model call.
func (c LLMConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}
