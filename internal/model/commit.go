package model

// CommitNode is a commit and the SHAs of its parents. Merge commits have more
// than one parent; the root commit has none.
type CommitNode struct {
	SHA     string
	Parents []string
}

// BranchTips maps a branch head SHA to the branch name. Several branches can
// share a tip; the map keeps the first one listed.
type BranchTips map[string]string

// Installation is the app's installation on an account.
type Installation struct {
	ID           int64
	AccountID    int64
	AccountLogin string
}
