// Package registration implements the account-lifecycle flows: sign-up,
// email confirmation, password reset and email change. The Service
// sequences the action-code codec, the replay cache and the external users
// api for each flow; pkg/registration/api exposes them over HTTP.
//
// Completing a flow follows one decision path everywhere: consult the
// replay cache first, decode the code only on a cache miss, look the
// subject up, check the flow's precondition, apply the mutation, then mark
// the code consumed for exactly its remaining lifetime.
package registration
