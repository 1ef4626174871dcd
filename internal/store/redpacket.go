package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"chatroom-backend/internal/models"
)

// Grab failure reasons, surfaced verbatim to the client.
const (
	GrabReasonNotFound       = "NotFound"
	GrabReasonAlreadyGrabbed = "AlreadyGrabbed"
	GrabReasonDepleted       = "Depleted"
)

// GrabOutcome is the result of one grab attempt. A repeated grab by the
// same user reports success=false with the amount recorded the first time.
type GrabOutcome struct {
	Success bool              `json:"success"`
	Reason  string            `json:"reason,omitempty"`
	Amount  float64           `json:"amount,omitempty"`
	Detail  *models.RedPacket `json:"detail,omitempty"`
}

// grabRedPacketScript runs the whole grab as one indivisible step on the
// store. Concurrent grabbers racing a plain read-then-write would
// double-spend the remaining amount, so this is the one sequence elevated
// to a server-side transaction. The split draws uniformly in
// [0, 2*remaining/count), floors to cents with a 0.01 minimum, and the
// last grabber takes the exact remainder so the totals always reconcile.
var grabRedPacketScript = redis.NewScript(`
	local hashKey = KEYS[1]
	local packetId = ARGV[1]
	local userId = ARGV[2]
	local userName = ARGV[3]
	local now = tonumber(ARGV[4])
	local seed = tonumber(ARGV[5])

	local data = redis.call("HGET", hashKey, packetId)
	if not data then
		return cjson.encode({ success = false, reason = "NotFound" })
	end

	local packet = cjson.decode(data)

	for _, grabbed in ipairs(packet.grabbedList) do
		if grabbed.userId == userId then
			return cjson.encode({ success = false, reason = "AlreadyGrabbed", amount = grabbed.amount, detail = packet })
		end
	end

	if packet.remainingCount <= 0 then
		return cjson.encode({ success = false, reason = "Depleted", detail = packet })
	end

	local amount
	if packet.remainingCount == 1 then
		amount = packet.remainingAmount
	else
		math.randomseed(seed)
		local max = (packet.remainingAmount / packet.remainingCount) * 2
		amount = math.random() * max
		amount = math.floor(amount * 100) / 100
		if amount < 0.01 then amount = 0.01 end
		if amount > packet.remainingAmount then amount = packet.remainingAmount end
	end

	amount = math.floor(amount * 100 + 0.5) / 100

	packet.remainingAmount = packet.remainingAmount - amount
	packet.remainingCount = packet.remainingCount - 1
	table.insert(packet.grabbedList, {
		userId = userId,
		userName = userName,
		amount = amount,
		timestamp = now
	})

	redis.call("HSET", hashKey, packetId, cjson.encode(packet))

	return cjson.encode({ success = true, amount = amount, detail = packet })
`)

// GrabRedPacket executes the atomic grab. Crediting the grabber's balance
// is the caller's job and happens outside this step.
func (s *Store) GrabRedPacket(ctx context.Context, packetID, userID, userName string) (*GrabOutcome, error) {
	key := fmt.Sprintf(KeyEntityHash, models.EntityRedPacket)

	raw, err := grabRedPacketScript.Run(ctx, s.client, []string{key},
		packetID, userID, userName, time.Now().UnixMilli(), rand.Int63()).Text()
	if err != nil {
		return nil, fmt.Errorf("grab script failed: %v", err)
	}

	var outcome GrabOutcome
	if err := json.Unmarshal([]byte(raw), &outcome); err != nil {
		return nil, fmt.Errorf("failed to decode grab outcome: %v", err)
	}
	return &outcome, nil
}
