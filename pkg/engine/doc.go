/*
Package engine is the lifecycle engine: the part of the manager that drives
every resource group toward its desired state.

The engine runs one goroutine per resource group. Depending on the manager's
mode each group runs one of three loops:

  - Observe (the default): every resource is polled with a monitor operation
    on its home host every 5 seconds and its status recorded. Nothing is
    ever started, stopped, or fenced.

  - Manage, non-HA: a 3-second loop dispatches on the group's aggregate
    status. An Unknown or running group is refreshed; a Stopped group gets a
    dependency-ordered start on its home host; an Unrunnable group waits for
    an operator.

  - Manage, HA: the aggregate status doubles as the state of a recovery
    state machine spanning the home and away hosts:

    Unknown        probe home, then away; conclude RunningOnHome,
                   RunningOnAway, or Stopped when the evidence is uniform
    Stopped        start at home; on failure, fence home off and start at away
    RunningOnHome  refresh at home; repeated probe failures (or a generic
                   agent error) move the group to CheckingHome
    CheckingHome   one targeted re-probe; a confirmed loss fences home off
                   and starts the group at away
    CheckingAway   start at away; failure marks the group Unrunnable
    RunningOnAway  refresh at away only; there is no automatic fail-back
    Unrunnable     re-probe both locations next tick

Fencing is a hard precondition of every failover: if the home host cannot be
fenced off, the failover is blocked and the group waits in Unknown for the
next tick rather than risk two hosts writing to the same pool.

Transport and remote-execution failures inside the loops are never fatal.
They translate to Unknown statuses and the loop continues; the group's
aggregate is always the worst status among its members.
*/
package engine
