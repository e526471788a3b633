// Package ledger reports finished games to the external ledger service.
//
// The game server never computes money. When a session completes, the final
// rankings and the configured prize split are posted to the ledger, which
// owns wallets and payouts. Abandoned games are not reported.
//
// Delivery is at-least-once from the server's point of view: the notifier
// retries transient failures a few times and then gives up with a logged
// error, the ledger deduplicates on session ID.
package ledger
