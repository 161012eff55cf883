package telegram

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// Roster keeps opt-in roles in Redis. Telegram has no custom roles, so the
// notify role is a set of user ids per chat.
type Roster struct {
	redis  *redis.Client
	prefix string
}

func NewRoster(client *redis.Client) *Roster {
	return &Roster{redis: client, prefix: "trivia:roster"}
}

func (r *Roster) key(serverID, roleID string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, serverID, roleID)
}

func (r *Roster) Grant(ctx context.Context, serverID, roleID, userID string) error {
	return r.redis.SAdd(ctx, r.key(serverID, roleID), userID).Err()
}

func (r *Roster) Revoke(ctx context.Context, serverID, roleID, userID string) error {
	return r.redis.SRem(ctx, r.key(serverID, roleID), userID).Err()
}

func (r *Roster) Has(ctx context.Context, serverID, roleID, userID string) (bool, error) {
	return r.redis.SIsMember(ctx, r.key(serverID, roleID), userID).Result()
}

// Members returns the sorted user ids holding the role.
func (r *Roster) Members(ctx context.Context, serverID, roleID string) ([]string, error) {
	members, err := r.redis.SMembers(ctx, r.key(serverID, roleID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	return members, nil
}
