// Package sequence allocates per-board card numbers. The happy path is the
// store's transactional counter; exhausted retries degrade to a time-derived
// number so card creation never blocks on the counter, at the cost of a gap
// the card is flagged to have reviewed.
package sequence
