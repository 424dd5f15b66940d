// Package profile holds the site's editable content: the headline, the
// wallet cards and the social links.
//
// The active profile lives in a Manager behind an atomic pointer so
// request handlers never block on a swap. A Loader fetches signed profile
// documents from S3, addressed by the SHA-256 published in SSM, and a
// Watcher polls that parameter and hot-swaps validated documents.
package profile
