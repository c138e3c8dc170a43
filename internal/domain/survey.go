package domain

// 巡天集合是封闭的：不提供插件注册面。
const (
	SurveyFIRST = "FIRST"
	SurveyNVSS  = "NVSS"
	SurveyVLASS = "VLASS"
	SurveyLOTSS = "LOTSS"
)

// AllSurveys 返回固定顺序的全部巡天名（遍历与展示顺序的唯一来源）。
func AllSurveys() []string {
	return []string{SurveyFIRST, SurveyNVSS, SurveyVLASS, SurveyLOTSS}
}

// KnownSurvey 判断大写名字是否属于封闭集合。
func KnownSurvey(name string) bool {
	switch name {
	case SurveyFIRST, SurveyNVSS, SurveyVLASS, SurveyLOTSS:
		return true
	}
	return false
}
