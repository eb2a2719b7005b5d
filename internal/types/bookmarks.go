package types

type UserId int

type BookmarkId string

type FolderId string

type TagId string

// UncategorizedFolder is the folder count key for bookmarks without a folder.
const UncategorizedFolder = "uncategorized"

// SummarySource records who asked for a summary.
type SummarySource string

const (
	SummarySourceAuto   SummarySource = "auto"
	SummarySourceManual SummarySource = "manual"
)
