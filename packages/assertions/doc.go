// Package assertions compares values the way built-in steps check them.
//
// Expectations are written in plain words after "should":
//   - be, equal, not equal (or ==, !=)
//   - be greater than, be less than, be at least, be at most
//   - contain, start with, end with, match (regular expressions)
//   - exist, not exist, have length, include, be in, be of type
//   - match schema (inline JSON schema or a schema file)
//   - all be (applies an expectation to every item of an array)
//
// Expected values that are valid JSON compare as numbers, booleans, arrays
// or objects.
package assertions
