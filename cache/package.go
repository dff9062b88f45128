/*
Package cache provides an interface to cache items. It should not be of any
concern to the callee where this cache is, simply that the cache exists and will
speed things up.

There are two levels. The shared level is memcached (or an in-process store
when memcached is not configured) and is addressed by key, optionally within a
group that can be invalidated as a whole. The request level is a Memo that
lives for the duration of one request and answers repeated reads without
touching the shared level.

Eventual consistency of the cached items is promised, but nothing more.
*/
package cache
