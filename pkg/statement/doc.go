// Package statement executes parameterized SQL statements against a
// serverless warehouse through the statement-execution API.
//
// Every variable input travels as a named parameter; caller code never
// interpolates values into SQL text. The Executor interface also
// exposes a TableExists probe so callers can degrade cleanly when an
// optional system table is not provisioned.
package statement
