// Package refs builds and normalizes realtime store paths.
package refs

import (
	"errors"
	"path"
	"sort"
	"strings"
	"unicode"
)

var ErrInvalidPath = errors.New("refs: invalid path")

// Clean trims spaces, merges duplicate slashes and strips the leading slash.
// It returns "" for paths that cannot address a record.
func Clean(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return ""
	}
	for _, seg := range strings.Split(p, "/") {
		if !validSegment(seg) {
			return ""
		}
	}
	return p
}

func validSegment(seg string) bool {
	if seg == "" || seg == "." || seg == ".." {
		return false
	}
	for _, r := range seg {
		if unicode.IsControl(r) || strings.ContainsRune("#$[]", r) {
			return false
		}
	}
	return true
}

// Split returns the parent collection and the last segment of a clean path.
func Split(p string) (collection, key string) {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

func Join(elem ...string) string {
	return Clean(strings.Join(elem, "/"))
}

// Room normalizes a room code shared out of band. Room codes are one segment.
func Room(code string) string {
	r := Clean(code)
	if strings.Contains(r, "/") {
		return strings.ReplaceAll(r, "/", "-")
	}
	return r
}

func Messages(room string) string        { return Join("rooms", room, "messages") }
func Message(room, id string) string     { return Join("rooms", room, "messages", id) }
func TypingAll(room string) string       { return Join("rooms", room, "typing") }
func Typing(room, uid string) string     { return Join("rooms", room, "typing", uid) }
func OnlineAll(room string) string       { return Join("rooms", room, "online") }
func Online(room, uid string) string     { return Join("rooms", room, "online", uid) }
func User(uid string) string             { return Join("users", uid) }
func UserChats(uid string) string        { return Join("users", uid, "chats") }
func UserChat(uid, chatID string) string { return Join("users", uid, "chats", chatID) }
func Chat(chatID string) string          { return Join("chats", chatID) }
func IsPresence(collection string) bool {
	return isRoomChild(collection, "online") || isRoomChild(collection, "typing")
}
func IsOnlineCollection(c string) bool   { return isRoomChild(c, "online") }
func IsTypingCollection(c string) bool   { return isRoomChild(c, "typing") }
func IsMessagesCollection(c string) bool { return isRoomChild(c, "messages") }

func isRoomChild(collection, leaf string) bool {
	parts := strings.Split(collection, "/")
	return len(parts) == 3 && parts[0] == "rooms" && parts[2] == leaf
}

// ChatID is the pairing id of two users: both ids sorted and joined by "_".
func ChatID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0] + "_" + ids[1]
}

// CollectionKind labels a collection for metrics without leaking ids.
func CollectionKind(collection string) string {
	parts := strings.Split(collection, "/")
	switch {
	case len(parts) == 3 && parts[0] == "rooms":
		return parts[2]
	case len(parts) >= 1 && parts[0] != "":
		return parts[0]
	default:
		return "root"
	}
}
