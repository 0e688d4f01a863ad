package scm

import "errors"

var (
	ErrStatusWrite = errors.New("scm: status write failed")
	ErrCommitFetch = errors.New("scm: commit fetch failed")
	ErrBranchList  = errors.New("scm: branch listing failed")
)
