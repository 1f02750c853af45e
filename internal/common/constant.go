// Package common contains shared constants, errors and small helpers used
// across quickmart components.
package common

// AuthorizationHeaderName carries the bearer access token on inbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is the optional scheme prefix stripped before token decoding.
const BearerPrefix = "Bearer "

// OtpCodeLength is the number of digits in a one-time code.
const OtpCodeLength = 6
