// Package storefront_sdk bootstraps a storefront client from configuration.
// STOREFRONT_MODE selects the backend: "http" talks to STOREFRONT_API_URL,
// "mock" serves the in-memory API from pkg/storefront/mock on a loopback
// listener, and "auto" (the default) picks http when an API URL is set and
// mock otherwise. Both modes expose the same *storefront.Client.
package storefront_sdk
