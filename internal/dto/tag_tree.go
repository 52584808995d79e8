package dto

// TagNode is one tag in the hierarchy with its subtree and usage count.
type TagNode struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	CategoryID   int64      `json:"categoryId"`
	CategoryName string     `json:"categoryName,omitempty"`
	CategoryType string     `json:"categoryType,omitempty"`
	ParentID     *int64     `json:"parentId,omitempty"`
	Level        int        `json:"level"`
	UsageCount   int        `json:"usageCount"`
	Children     []*TagNode `json:"children"`
}
