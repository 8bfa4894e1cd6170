// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package inmem implements the store share registry interface. Shares live only
in the memory of the running process and are lost on restart.

The registry is split into shards, each guarded by its own lock, so that
unrelated shares don't contend with each other. Expired and invalidated shares
stay in place as tombstones until either a lookup touches them or a sweep
removes them.
*/
package inmem
