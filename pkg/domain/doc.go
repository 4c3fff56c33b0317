// Package domain holds the core business entities shared across the
// application: users, ingested datasets, and model training runs. The types
// carry no infrastructure concerns so every layer can depend on them.
package domain
