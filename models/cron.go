package models

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// Jobs run on a schedule. Each logs its own failures as there is no caller
// to return an error to.

// CompleteOpenHouses moves open houses through their statuses as their
// start and end times pass
func CompleteOpenHouses() {
	n, err := UpdateOpenHouseStatuses(time.Now())
	if err != nil {
		glog.Errorf("UpdateOpenHouseStatuses() %+v", err)
		return
	}
	if n > 0 && glog.V(2) {
		glog.Infof("updated the status of %d open houses", n)
	}
}

// DeleteOldNotifications removes notifications past their retention
func DeleteOldNotifications() {
	n, err := PurgeOldNotifications(time.Now())
	if err != nil {
		glog.Errorf("PurgeOldNotifications() %+v", err)
		return
	}
	if n > 0 && glog.V(2) {
		glog.Infof("deleted %d old notifications", n)
	}
}

// SendDueCampaigns sends campaigns whose scheduled time has passed
func SendDueCampaigns() {
	n, err := SendScheduledCampaigns(time.Now())
	if err != nil {
		glog.Errorf("SendScheduledCampaigns() %+v", err)
		return
	}
	if n > 0 {
		glog.Infof("sent %d scheduled campaigns", n)
	}
}

// RunDailySelfTests runs every self-test suite
func RunDailySelfTests() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	runs, _, err := RunSelfTests(ctx, "all", 0)
	if err != nil {
		glog.Errorf("RunSelfTests() %+v", err)
		return
	}
	for _, run := range runs {
		if run.Failed > 0 {
			glog.Warningf("self test suite %s: %d passed, %d failed", run.Suite, run.Passed, run.Failed)
		}
	}
}
