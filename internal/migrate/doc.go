// Package migrate copies every source repository into the destination provider: it lists
// repositories, extracts each branch tip, provisions the destination repository, transfers
// content trees, and replays commits onto matching branches while isolating failures per
// repository and per branch.
package migrate
