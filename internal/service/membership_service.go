package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"pages-cd/internal/core/outcome"
	"pages-cd/internal/model"
	"pages-cd/internal/repository"
)

// MembershipService 站点成员管理
type MembershipService struct {
	userRepo     repository.UserRepository
	inactiveDays int
	concurrency  int
	now          func() time.Time
	logger       *zap.Logger
}

// NewMembershipService 创建站点成员服务
func NewMembershipService(userRepo repository.UserRepository, inactiveDays, concurrency int, logger *zap.Logger) *MembershipService {
	return &MembershipService{
		userRepo:     userRepo,
		inactiveDays: inactiveDays,
		concurrency:  concurrency,
		now:          time.Now,
		logger:       logger,
	}
}

// RevokeMembershipForInactiveUsers 移除超过 inactiveDays 未登录用户的全部站点权限
func (s *MembershipService) RevokeMembershipForInactiveUsers(ctx context.Context) ([]outcome.Keyed[int64, int64], error) {
	cutoff := s.now().AddDate(0, 0, -s.inactiveDays)
	users, err := s.userRepo.ListInactiveMembers(cutoff)
	if err != nil {
		return nil, err
	}

	ids := lo.Map(users, func(u *model.User, _ int) int64 { return u.ID })
	s.logger.Info("开始移除不活跃用户", zap.Time("cutoff", cutoff), zap.Int64s("user_ids", ids))

	return outcome.Settle(ctx, ids, s.concurrency, func(_ context.Context, id int64) (int64, error) {
		if err := s.userRepo.RevokeMemberships(id); err != nil {
			return 0, err
		}
		s.logger.Info("已移除用户站点权限", zap.Int64("user_id", id))
		return id, nil
	}), nil
}
