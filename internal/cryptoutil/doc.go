// Package cryptoutil verifies the integrity and origin of profile documents:
// SHA-256 digests compared in constant time, and signatures checked locally
// against a KMS asymmetric key whose public half is fetched once and cached.
package cryptoutil
