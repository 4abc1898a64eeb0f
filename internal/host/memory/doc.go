// Package memory provides in-memory implementations of the host
// interfaces. They back the standalone server mode and every unit test;
// behavior matches the browser host at the interface boundary, including
// failing window lookups for closed windows.
package memory
