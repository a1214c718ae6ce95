// Package env resolves variables in step values.
//
// It provides functionality for:
//   - Loading .env files and prefixed process environment variables
//   - Variable interpolation using {{variable}} syntax
//   - Environment references ({{$HOME}}) and function calls ({{uuid()}})
package env
