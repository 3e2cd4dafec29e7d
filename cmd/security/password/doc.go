// Package password provides Argon2id password hashing for Carelink.
//
// Hashes use the PHC string format and are verified with a constant-time
// compare. Cost parameters and length policy come from environment variables
// with conservative defaults; decoding enforces anti-DoS bounds so an
// attacker-controlled hash string cannot drive pathological resource usage.
package password
