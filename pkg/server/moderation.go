package server

import (
	"fmt"

	"github.com/NicolasHaas/gochat/pkg/model"
)

// block bans the target's address, records it in the audit log and kicks
// the target. The caller has already checked PermBlockUser.
func (s *Server) block(requester *Session, targetName string) {
	target := s.registry.FindByName(targetName)
	if target == requester {
		_ = requester.Send(noticeBlockSelf)
		return
	}
	if target == nil {
		_ = requester.Send(fmt.Sprintf(noticeUserNotFound, targetName))
		return
	}

	addr := target.RemoteAddr()
	s.registry.Block(addr)
	s.metrics.BlockCount.Add(1)

	rec := &model.BlockRecord{
		Address:    addr,
		TargetName: target.Name(),
		BlockedBy:  requester.Name(),
	}
	if err := s.audit.RecordBlock(s.ctx, rec); err != nil {
		s.log.Error("failed to record block", "address", addr, "err", err)
	}

	s.log.Warn("address blocked",
		"address", addr,
		"target", rec.TargetName,
		"by", rec.BlockedBy,
	)

	target.Kick(noticeBlockedTarget)
	_ = requester.Send(fmt.Sprintf(noticeBlockDone, targetName, addr))
}
