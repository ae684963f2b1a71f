// Package harmony holds the entity types exchanged with the Harmony chat
// service: users, servers, channels, messages, profiles and friendships.
//
// Payloads are validated by the schema package before they are handed to
// callers, so values of these types obtained from the api or realtime
// packages always satisfy the field constraints documented there.
package harmony
