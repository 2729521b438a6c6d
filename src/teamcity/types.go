package teamcity

// Build states and statuses reported by TeamCity.
const (
	StateQueued   = "queued"
	StateRunning  = "running"
	StateFinished = "finished"

	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// Build represents a TeamCity build.
type Build struct {
	ID          int64  `json:"id"`
	BuildTypeID string `json:"buildTypeId"`
	Number      string `json:"number"`
	State       string `json:"state"`
	Status      string `json:"status"`
	BranchName  string `json:"branchName"`
	Pinned      bool   `json:"pinned"`
	WebURL      string `json:"webUrl"`
	Tags        *Tags  `json:"tags,omitempty"`
}

// TagNames returns the names of the build's tags in server order.
func (b *Build) TagNames() []string {
	if b.Tags == nil {
		return nil
	}
	names := make([]string, 0, len(b.Tags.Tag))
	for _, t := range b.Tags.Tag {
		names = append(names, t.Name)
	}
	return names
}

// HasTag reports whether the build carries the named tag.
func (b *Build) HasTag(name string) bool {
	for _, n := range b.TagNames() {
		if n == name {
			return true
		}
	}
	return false
}

// Finished reports whether the build reached a terminal state.
func (b *Build) Finished() bool {
	return b.State == StateFinished
}

// Succeeded reports whether the build finished successfully.
func (b *Build) Succeeded() bool {
	return b.Finished() && b.Status == StatusSuccess
}

// Tags is the wire format of a tag list: {count, tag:[{name}]}.
type Tags struct {
	Count int   `json:"count"`
	Tag   []Tag `json:"tag"`
}

// Tag is a single build tag.
type Tag struct {
	Name string `json:"name"`
}

// NewTags builds a tag list from names.
func NewTags(names []string) Tags {
	tags := Tags{Count: len(names), Tag: make([]Tag, 0, len(names))}
	for _, n := range names {
		tags.Tag = append(tags.Tag, Tag{Name: n})
	}
	return tags
}

// BuildList is the response of the builds collection.
type BuildList struct {
	Count int     `json:"count"`
	Build []Build `json:"build"`
}

// Files is the response of an artifact listing.
type Files struct {
	Count int    `json:"count"`
	File  []File `json:"file"`
}

// File is a single artifact entry.
type File struct {
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
	Href string `json:"href,omitempty"`
}

// QueuedBuild is the response of a build-queue POST.
type QueuedBuild struct {
	ID          int64  `json:"id"`
	BuildTypeID string `json:"buildTypeId"`
	State       string `json:"state"`
	BranchName  string `json:"branchName"`
	WebURL      string `json:"webUrl"`
}

// BuildTypeRef references a build configuration in a queue request.
type BuildTypeRef struct {
	ID string `json:"id"`
}

// TriggerRequest is the body of a build-queue POST.
type TriggerRequest struct {
	BuildType  BuildTypeRef `json:"buildType"`
	BranchName string       `json:"branchName,omitempty"`
}
