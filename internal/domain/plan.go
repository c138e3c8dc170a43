package domain

// Target 是一个待抓取的天区位置（来自目标文件或 --ra/--dec）。
// SizeArcmin 为 0 表示使用配置默认边长。
type Target struct {
	Coord      SkyCoord
	SizeArcmin float64
}

// FetchItem 是计划中的一次抓取（survey × 坐标）。
// 计划阶段不做任何网络 I/O；Request 只在执行时由它派生。
type FetchItem struct {
	Survey     string
	Coord      SkyCoord
	SizeArcmin float64 // VLASS 忽略

	// WillDownload 是 cache guard 的预判（文件缺失或 overwrite=true）。
	WillDownload bool
	// Path 是预判时计算出的落盘路径（VLASS 在解析前未知，留空）。
	Path string
}

// FetchPlan 是一次运行的最小执行计划。
type FetchPlan struct {
	Items []FetchItem
	// Duplicates 是去重掉的 (survey, stem) 重复条目数（保留首见）。
	Duplicates int
}
