// Package builtin provides general purpose steps for stories.
//
// Variables:
//   - Given the variable $name is $value
//   - Given the story variable $name is $value
//   - Given the variables: $table (name and value columns)
//   - Given a unique id stored as $name
//   - Then the variable $name should $expectation
//
// JSON, commands, services and databases:
//   - Given the JSON path $path of $source is stored as $name
//   - Then the JSON path $path of $source should $expectation
//   - When I run the command $command (a leading "-" ignores the exit code)
//   - Then the command should exit with $code
//   - Then the command output should $expectation
//   - Given the command $command succeeds
//   - Given the service at $url is ready within $timeout
//   - Given the service at $url returns $status within $timeout
//   - Given the database $name at $connection
//   - When I execute the SQL $statement on $name
//   - Then the query $query on $name should return $count rows
//   - Then the column $column of the query $query on $name should $expectation
//
// Snapshots:
//   - Then the variable $name matches the snapshot $snapshot
//
// Snapshot names are "group/key"; each group is one file below
// __snapshots__. A missing snapshot fails unless snapshots are updated.
//
// Others: When I wait $duration, Then the following table should have
// $count rows: $table.
//
// Values may reference variables with {{name}}, environment variables with
// {{$NAME}} and functions such as {{uuid()}} or {{random(1, 6)}}.
// Expectations are described in package assertions.
package builtin
