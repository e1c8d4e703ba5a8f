/*
Package fence provides out-of-band power control of hosts through pluggable
fence agents (powerman, redfish, or the test agent).

All agents share one transport: the agent executable is spawned, fed a
newline-separated key=value parameter blob on stdin, and judged by its exit
status. Power-status queries additionally parse the agent's stdout for the
"is ON" / "is OFF" verdict.
*/
package fence
