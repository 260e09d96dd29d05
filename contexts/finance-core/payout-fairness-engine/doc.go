// Package payoutfairnessengine audits how a challenge bounty was divided
// among its contributors inside the finance-core context.
//
// An audit resolves one payout source (the latest proposed distribution, or
// realized payments when none exists), measures inequality with the Gini
// coefficient, evaluates the red and green flag rules, and appends an
// immutable audit record together with a fairness.audit_completed outbox
// event. The pure split calculator is exposed alongside.
package payoutfairnessengine
