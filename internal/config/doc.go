// Package config provides environment-based configuration.
//
// Loads from the process environment (a .env file is read by main via
// godotenv before Load runs). Validates required fields.
package config
