// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing execution contexts and plan markup. They
// are not intended for production usage.
package testutil
