package domain

// Outcome 是一次抓取的标注结果，取代旧式被复用的 success 布尔。
// 旧语义映射：success=1 ⇔ downloaded；其余一律 success=0，但彼此可区分。
const (
	OutcomeDownloaded      = "downloaded"
	OutcomeSkippedExisting = "skipped_existing"
	OutcomeNoSuitableMatch = "no_suitable_match"
	OutcomeEmptyPayload    = "empty_payload"
	OutcomePlanned         = "planned"
	OutcomeFailed          = "failed"
)

// 逐项错误码（出现在 TargetResult.ErrorCode 里）。配置阶段的 config_* 码
// 属于 config 包，不在这里重复。
const (
	ErrCodeRemoteService      = "remote_service_error"
	ErrCodeNoMatch            = "no_match"
	ErrCodeListingUnavailable = "listing_unavailable"
	ErrCodeTargetsInvalid     = "targets_invalid"
	ErrCodeIOFailed           = "io_failed"
	ErrCodeCanceled           = "canceled"
)
