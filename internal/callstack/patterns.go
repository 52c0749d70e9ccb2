package callstack

import "regexp"

// Regex patterns for ABL call-stack lines as written by the ABLUnit runner.
// Both patterns are anchored at both ends so the parenthesised r-code unit is
// always the last token on the line.
var (
	// Method frame: "<method> <artifact> at line <N>  (<unit>)"
	// Group 1: method or internal procedure name (often dotted)
	// Group 2: artifact (class or program name)
	// Group 3: line number inside the compiled artifact
	// Group 4: r-code unit
	// Example: RunTests OpenEdge.ABLUnit.Runner.ABLRunner at line 149  (OpenEdge/ABLUnit/Runner/ABLRunner.r)
	methodFramePattern = regexp.MustCompile(`^(\S+) (\S+) at line (\d+) +\((\S+)\)$`)

	// Program frame: "<artifact> at line <N>  (<unit>)"
	// Group 1: artifact
	// Group 2: line number
	// Group 3: r-code unit
	// Example: ABLUnitCore.p at line 79  (ABLUnitCore.r)
	programFramePattern = regexp.MustCompile(`^(\S+) at line (\d+) +\((\S+)\)$`)
)
