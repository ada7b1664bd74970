// Package gitx answers the revision-control queries the change-set
// discoverer needs: working-tree and staged change lists, default-branch
// detection, merge-base resolution, and committed-change lists between
// revisions.
//
// It shells out to git in a fixed working directory. Queries are tolerant by
// contract: a repository-shaped failure (not a repo, unknown branch) comes
// back as an empty list, and only a failure to run git at all is surfaced as
// an error.
package gitx
