package enums

type ReportReason string

const (
	ReportReasonSpam    ReportReason = "spam"
	ReportReasonFake    ReportReason = "fake"
	ReportReasonAbusive ReportReason = "abusive"
	ReportReasonOther   ReportReason = "other"
)

func (r ReportReason) Valid() bool {
	switch r {
	case ReportReasonSpam, ReportReasonFake, ReportReasonAbusive, ReportReasonOther:
		return true
	}
	return false
}
