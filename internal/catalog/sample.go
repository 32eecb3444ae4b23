package catalog

// SampleRecords returns the small built-in dataset used when the catalog
// source cannot be read.
func SampleRecords() []Record {
	return []Record{
		{Name: "血糖检测仪", Code: "IVD-001", Level: 3, Purpose: "用于血糖水平检测"},
		{Name: "引流导管", Code: "DEV-002", Level: 2, Purpose: "用于术后引流"},
		{Name: "超声诊断仪", Code: "DEV-003", Level: 3, Purpose: "用于医学影像诊断"},
		{Name: "心脏支架", Code: "IMP-004", Level: 3, Purpose: "用于心血管手术"},
		{Name: "医用口罩", Code: "PRO-005", Level: 1, Purpose: "用于个人防护"},
	}
}
