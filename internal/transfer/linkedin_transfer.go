package transfer

type LinkedInProfile struct {
	ID             string `json:"id"`
	FirstName      string `json:"localizedFirstName"`
	LastName       string `json:"localizedLastName"`
	VanityName     string `json:"vanityName"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type TokenResult struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type UGCText struct {
	Text string `json:"text"`
}

type UGCMedia struct {
	Status      string   `json:"status"`
	OriginalURL string   `json:"originalUrl"`
	Title       *UGCText `json:"title,omitempty"`
	Description *UGCText `json:"description,omitempty"`
}

type UGCShareContent struct {
	ShareCommentary    UGCText    `json:"shareCommentary"`
	ShareMediaCategory string     `json:"shareMediaCategory"`
	Media              []UGCMedia `json:"media,omitempty"`
}

type UGCPostRequest struct {
	Author          string                     `json:"author"`
	LifecycleState  string                     `json:"lifecycleState"`
	SpecificContent map[string]UGCShareContent `json:"specificContent"`
	Visibility      map[string]string          `json:"visibility"`
}

type UGCPostResponse struct {
	ID string `json:"id"`
}

// SocialActionsResponse is the subset of /v2/socialActions used by the
// stats refresh job.
type SocialActionsResponse struct {
	LikesSummary struct {
		TotalLikes int `json:"totalLikes"`
	} `json:"likesSummary"`
	CommentsSummary struct {
		AggregatedTotalComments int `json:"aggregatedTotalComments"`
	} `json:"commentsSummary"`
}
