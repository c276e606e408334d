package importers

import "fmt"

// synthesizeChain links a flat, already-ordered message list into a
// parent-pointer node chain so flat-list vendors satisfy the same graph
// contract as tree-based ones. Returns the mapping and the leaf node id.
func synthesizeChain(messages []*RawMessage) (map[string]*RawNode, string) {
	mapping := make(map[string]*RawNode, len(messages))

	var prevID, leafID string
	for i, msg := range messages {
		id := msg.SourceID
		if id == "" {
			id = fmt.Sprintf("msg-%d", i)
		}
		// Guard against vendor id collisions inside one conversation.
		if _, taken := mapping[id]; taken {
			id = fmt.Sprintf("%s-%d", id, i)
		}

		node := &RawNode{
			ID:       id,
			ParentID: prevID,
			Message:  msg,
		}
		if prevID != "" {
			parent := mapping[prevID]
			parent.ChildrenIDs = append(parent.ChildrenIDs, id)
		}
		mapping[id] = node
		prevID = id
		leafID = id
	}

	return mapping, leafID
}
